package lifecycle

import "context"

// Step is one unit of incremental work. Run returns follow-up steps, which
// execute before anything already queued.
type Step struct {
	Name string
	Run  func(ctx context.Context) ([]Step, error)
}

// Queue is a FIFO of pending steps.
type Queue struct {
	steps []Step
}

// Push appends steps to the back of the queue.
func (q *Queue) Push(steps ...Step) {
	q.steps = append(q.steps, steps...)
}

// pushFront inserts steps, in order, at the head of the queue.
func (q *Queue) pushFront(steps ...Step) {
	if len(steps) == 0 {
		return
	}
	merged := make([]Step, 0, len(steps)+len(q.steps))
	merged = append(merged, steps...)
	q.steps = append(merged, q.steps...)
}

// Pop removes and returns the head step.
func (q *Queue) Pop() (Step, bool) {
	if len(q.steps) == 0 {
		return Step{}, false
	}
	s := q.steps[0]
	q.steps[0] = Step{}
	q.steps = q.steps[1:]
	return s, true
}

// Len returns the number of pending steps.
func (q *Queue) Len() int {
	return len(q.steps)
}

// Names returns the pending step names in execution order.
func (q *Queue) Names() []string {
	names := make([]string, len(q.steps))
	for i, s := range q.steps {
		names[i] = s.Name
	}
	return names
}
