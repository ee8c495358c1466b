package presence

import "sync"

// Delivery is an event captured by a Recorder.
type Delivery struct {
	Event   string
	Payload any
}

// Recorder is a Conn that keeps every delivered event in memory. Packages
// that push through a Registry use it in their tests. Err, when set, is
// returned from Send.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	Err        error
}

// Send records the event.
func (r *Recorder) Send(event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.deliveries = append(r.deliveries, Delivery{Event: event, Payload: payload})
	return nil
}

// Deliveries returns a copy of the recorded events in delivery order.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}
