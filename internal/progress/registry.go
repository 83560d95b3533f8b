package progress

// edgeRecord is what the tracker keeps about a running edge.
type edgeRecord struct {
	id          uint32
	description string
	command     string
	console     bool
	startMillis int64
}

// registry holds the running edges in the order they started.
type registry struct {
	byID  map[uint32]*edgeRecord
	order []*edgeRecord
}

func (r *registry) add(rec *edgeRecord) {
	if r.byID == nil {
		r.byID = make(map[uint32]*edgeRecord)
	}
	r.byID[rec.id] = rec
	r.order = append(r.order, rec)
}

func (r *registry) get(id uint32) *edgeRecord { return r.byID[id] }

func (r *registry) remove(id uint32) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, rec := range r.order {
		if rec.id == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// first returns the longest-running edge, or nil.
func (r *registry) first() *edgeRecord {
	if len(r.order) == 0 {
		return nil
	}
	return r.order[0]
}

func (r *registry) len() int { return len(r.order) }

func (r *registry) reset() {
	r.byID = nil
	r.order = nil
}
