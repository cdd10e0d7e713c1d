package sim

// SimTime is simulated time in seconds. It never decreases during a run.
type SimTime float64

// Event wakes a car at a point in simulated time. It carries no behavior: the world
// dispatches on the car's state when the event fires.
type Event struct {
	When SimTime
	Car  CarID
	seq  uint64 // insertion order, breaks ties FIFO
}

// eventQueue implements heap.Interface and orders events by time, then insertion order.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []Event

func (eq eventQueue) Len() int { return len(eq) }

func (eq eventQueue) Less(i, j int) bool {
	if eq[i].When != eq[j].When {
		return eq[i].When < eq[j].When
	}
	return eq[i].seq < eq[j].seq
}

func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(Event))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Handler executes a fired event.
type Handler interface {
	Handle(ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev Event) error

// Handle calls f(ev).
func (f HandlerFunc) Handle(ev Event) error {
	return f(ev)
}
