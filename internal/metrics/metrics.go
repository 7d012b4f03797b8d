package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline holds the collectors of the world generation pipeline. A nil
// *Pipeline is valid and records nothing.
type Pipeline struct {
	Cycles           prometheus.Counter
	ColumnsGenerated prometheus.Counter
	ColumnsPromoted  prometheus.Counter
	ColumnsDemoted   prometheus.Counter
	ColumnsEvicted   prometheus.Counter
	EvictionsBlocked prometheus.Counter
	ChunksMeshed     prometheus.Counter
	FacesEmitted     prometheus.Counter
	DirectEdits      prometheus.Counter
	ColumnsRendered  prometheus.Gauge
	ColumnsReserved  prometheus.Gauge
	PhaseDuration    *prometheus.HistogramVec
}

// NewPipeline creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_generation_cycles_total",
			Help: "Generation cycles completed.",
		}),
		ColumnsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_columns_generated_total",
			Help: "Columns filled by the terrain generator.",
		}),
		ColumnsPromoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_columns_promoted_total",
			Help: "Columns moved from the reserved map to the rendered map.",
		}),
		ColumnsDemoted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_columns_demoted_total",
			Help: "Columns moved from the rendered map to the reserved map.",
		}),
		ColumnsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_columns_evicted_total",
			Help: "Reserved columns freed after leaving render distance and margin.",
		}),
		EvictionsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_evictions_blocked_total",
			Help: "Evictions deferred because a structure footprint reaches the render distance.",
		}),
		ChunksMeshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_chunks_meshed_total",
			Help: "Chunks meshed, by the pipeline or by direct edits.",
		}),
		FacesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_faces_emitted_total",
			Help: "Packed faces produced by the mesher.",
		}),
		DirectEdits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voxel_direct_edits_total",
			Help: "Single-block edits and fills applied on the render thread.",
		}),
		ColumnsRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxel_columns_rendered",
			Help: "Columns currently in the rendered map.",
		}),
		ColumnsReserved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voxel_columns_reserved",
			Help: "Columns currently in the reserved map.",
		}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voxel_generation_phase_seconds",
			Help:    "Wall time of each generation cycle phase.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"phase"}),
	}
	if reg != nil {
		reg.MustRegister(
			p.Cycles, p.ColumnsGenerated, p.ColumnsPromoted, p.ColumnsDemoted,
			p.ColumnsEvicted, p.EvictionsBlocked, p.ChunksMeshed, p.FacesEmitted,
			p.DirectEdits, p.ColumnsRendered, p.ColumnsReserved, p.PhaseDuration,
		)
	}
	return p
}

// ObservePhase records the duration of a cycle phase started at start.
func (p *Pipeline) ObservePhase(phase string, start time.Time) {
	if p == nil {
		return
	}
	p.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

// CycleDone counts a completed generation cycle.
func (p *Pipeline) CycleDone() {
	if p == nil {
		return
	}
	p.Cycles.Inc()
}

// Transitions records the column map changes of one cycle.
func (p *Pipeline) Transitions(generated, promoted, demoted, evicted, blocked int) {
	if p == nil {
		return
	}
	p.ColumnsGenerated.Add(float64(generated))
	p.ColumnsPromoted.Add(float64(promoted))
	p.ColumnsDemoted.Add(float64(demoted))
	p.ColumnsEvicted.Add(float64(evicted))
	p.EvictionsBlocked.Add(float64(blocked))
}

// Meshed records chunks meshed and the faces they produced.
func (p *Pipeline) Meshed(chunks, faces int) {
	if p == nil {
		return
	}
	p.ChunksMeshed.Add(float64(chunks))
	p.FacesEmitted.Add(float64(faces))
}

// DirectEdit counts a block edit or fill applied on the render thread.
func (p *Pipeline) DirectEdit() {
	if p == nil {
		return
	}
	p.DirectEdits.Inc()
}

// SetMapSizes updates the map size gauges.
func (p *Pipeline) SetMapSizes(rendered, reserved int) {
	if p == nil {
		return
	}
	p.ColumnsRendered.Set(float64(rendered))
	p.ColumnsReserved.Set(float64(reserved))
}
