package cpemnet

import "testing"

func TestTaskSchedulerPendingCountsWaitingAndInService(t *testing.T) {
	sched := CreateTaskScheduler(1)
	if got := sched.Pending(); got != 0 {
		t.Fatalf("Pending() on a fresh scheduler = %d, want 0", got)
	}

	inService := &Task{OpType: "tx", req: 1}
	waiting := &Task{OpType: "tx", req: 1}
	sched.inservice = append(sched.inservice, inService)
	sched.waiting = append(sched.waiting, waiting)

	if got := sched.Pending(); got != 2 {
		t.Fatalf("Pending() with 1 in service and 1 waiting = %d, want 2", got)
	}
}

func TestTaskSchedulerPendingReflectsCoreCount(t *testing.T) {
	sched := CreateTaskScheduler(2)
	sched.inservice = append(sched.inservice, &Task{OpType: "tx", req: 1}, &Task{OpType: "tx", req: 1})
	if got := sched.Pending(); got != 2 {
		t.Fatalf("Pending() with 2 tasks in service on a 2-core scheduler = %d, want 2", got)
	}
}
