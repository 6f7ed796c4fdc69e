package report

// Row is one logged record: the simulated time it was captured at and
// a flat field map.
type Row struct {
	Time int64
	Data map[string]any
}

// Recorder accumulates named row logs over a backtest run. Appending
// to a log that does not exist yet creates it, so callers never have
// to pre-register keys.
type Recorder struct {
	logs  map[string][]Row
	order []string
}

func NewRecorder() *Recorder {
	return &Recorder{logs: make(map[string][]Row)}
}

// CreateLog registers an empty log. Creating an existing key is a
// no-op and keeps its rows.
func (r *Recorder) CreateLog(key string) {
	if _, ok := r.logs[key]; ok {
		return
	}
	r.logs[key] = []Row{}
	r.order = append(r.order, key)
}

// Append adds a row to the named log, creating the log if needed.
func (r *Recorder) Append(key string, row Row) {
	if _, ok := r.logs[key]; !ok {
		r.CreateLog(key)
	}
	r.logs[key] = append(r.logs[key], row)
}

// Keys returns the log names in creation order.
func (r *Recorder) Keys() []string {
	return append([]string(nil), r.order...)
}

// Export returns a copy of every log keyed by name. Mutating the
// result does not touch the recorder.
func (r *Recorder) Export() map[string][]Row {
	out := make(map[string][]Row, len(r.logs))
	for key, rows := range r.logs {
		out[key] = append([]Row(nil), rows...)
	}
	return out
}
