package world

import "proofline.ai/internal/sim/world/kernel/model"

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Machines      int `json:"machines"`
	Belts         int `json:"belts"`
	Ports         int `json:"ports"`
	Links         int `json:"links"`
	ItemsInFlight int `json:"items_in_flight"`
	LooseItems    int `json:"loose_items"`
	Observers     int `json:"observers"`

	Transfers    int `json:"transfers"`
	Backpressure int `json:"backpressure"`
	Anomalies    int `json:"anomalies"`

	TransfersTotal    uint64 `json:"transfers_total"`
	BackpressureTotal uint64 `json:"backpressure_total"`
	AnomaliesTotal    uint64 `json:"anomalies_total"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox         int `json:"inbox"`
	ObserverJoin  int `json:"observer_join"`
	ObserverLeave int `json:"observer_leave"`
}

type tickCounters struct {
	transfers    uint64
	backpressure uint64
	anomalies    uint64
}

func (c *tickCounters) add(o tickCounters) {
	c.transfers += o.transfers
	c.backpressure += o.backpressure
	c.anomalies += o.anomalies
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(tick uint64, stepMS float64) {
	m := WorldMetrics{
		Tick:              tick,
		Machines:          w.grid.Len(),
		Ports:             w.ports.Len(),
		LooseItems:        len(w.loose),
		Observers:         len(w.observers),
		Transfers:         int(w.counters.transfers),
		Backpressure:      int(w.counters.backpressure),
		Anomalies:         int(w.counters.anomalies),
		TransfersTotal:    w.totals.transfers,
		BackpressureTotal: w.totals.backpressure,
		AnomaliesTotal:    w.totals.anomalies,
		QueueDepths: QueueDepths{
			Inbox:         len(w.inbox),
			ObserverJoin:  len(w.observerJoin),
			ObserverLeave: len(w.observerLeave),
		},
		StepMS: stepMS,
	}
	for _, mc := range w.grid.Machines() {
		if _, ok := mc.(*model.Belt); ok {
			m.Belts++
		}
		m.ItemsInFlight += len(heldItems(mc))
		for _, p := range mc.Core().OutputPorts() {
			if p.Connected() {
				m.Links++
			}
		}
	}
	w.metrics.Store(m)
}
