package dashboard

// Event is a user interaction that produces a new View.
type Event interface {
	isEvent()
}

// RecordSelected selects a reference record. Out-of-range indices are
// clamped the way a bounded number input would.
type RecordSelected struct {
	Index int
}

// BatchUploaded scores an uploaded file.
type BatchUploaded struct {
	Name string
	Data []byte
}

// BatchCleared removes the batch panel.
type BatchCleared struct{}

func (RecordSelected) isEvent() {}
func (BatchUploaded) isEvent()  {}
func (BatchCleared) isEvent()   {}

// View is everything the frontend renders.
type View struct {
	Title      string         `json:"title" msgpack:"title"`
	Bound      int            `json:"bound" msgpack:"bound"`
	Record     *RecordView    `json:"record" msgpack:"record"`
	Importance ImportanceView `json:"importance" msgpack:"importance"`
	Batch      *BatchView     `json:"batch" msgpack:"batch"`
	Error      string         `json:"error,omitempty" msgpack:"error,omitempty"`
}

// InitialView is the view before any interaction: record 0 selected.
func (s *State) InitialView() View {
	return Reduce(s, View{}, RecordSelected{Index: 0})
}

// Reduce applies one event to the previous view and returns the next one.
// Panels the event does not touch carry over.
func Reduce(s *State, prev View, ev Event) View {
	next := prev
	next.Title = s.Title()
	next.Bound = s.Bound()
	next.Importance = s.Importance()
	next.Error = ""

	switch e := ev.(type) {
	case RecordSelected:
		rv, err := s.Inspect(s.Clamp(e.Index))
		if err != nil {
			next.Error = err.Error()
			break
		}
		next.Record = rv
	case BatchUploaded:
		next.Batch = s.ScoreBatch(e.Name, e.Data)
	case BatchCleared:
		next.Batch = nil
	}
	return next
}
