package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
)

// JobTask is a unit of work run on a worker goroutine. OnComplete and
// OnFailure are invoked later from Update, on the thread that owns the
// renderer.
type JobTask struct {
	Name       string
	Run        func() (interface{}, error)
	OnComplete func(result interface{})
	OnFailure  func(err error)
}

type jobResult struct {
	task   JobTask
	result interface{}
	err    error
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup

	mu       sync.Mutex
	results  *containers.RingQueue[jobResult]
	capacity int
	closed   bool
	inFlight int
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = errors.New("job system is shut down")
var ErrJobQueueFull = errors.New("job system has too many pending jobs")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	// Pending jobs are capped at the result queue size.
	capacity := channelSize + numWorkers
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
		results:    containers.NewRingQueue[jobResult](capacity),
		capacity:   capacity,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				result, err := job.Run()
				if err != nil {
					core.LogError("job %q failed: %s", job.Name, err)
				}
				js.complete(jobResult{task: job, result: result, err: err})
			}
		}()
	}
}

// complete parks the result until the next Update.
func (js *JobSystem) complete(r jobResult) {
	js.mu.Lock()
	defer js.mu.Unlock()
	if err := js.results.Enqueue(r); err != nil {
		core.LogError("dropping result of job %q: %s", r.task.Name, err)
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run; their callbacks
 * are dropped.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	js.mu.Unlock()

	close(js.jobQueue)
	js.wg.Wait()

	js.mu.Lock()
	for !js.results.IsEmpty() {
		_, _ = js.results.Dequeue()
	}
	js.inFlight = 0
	js.mu.Unlock()
	return nil
}

/**
 * @brief Updates the job system. Should happen once an update cycle. Runs the
 * callbacks of every job finished since the last call and returns how many.
 */
func (js *JobSystem) Update() int {
	js.mu.Lock()
	var ready []jobResult
	for !js.results.IsEmpty() {
		r, _ := js.results.Dequeue()
		ready = append(ready, r)
	}
	js.inFlight -= len(ready)
	js.mu.Unlock()

	for _, r := range ready {
		if r.err != nil {
			if r.task.OnFailure != nil {
				r.task.OnFailure(r.err)
			}
			continue
		}
		if r.task.OnComplete != nil {
			r.task.OnComplete(r.result)
		}
	}
	return len(ready)
}

// Pending is the number of submitted jobs whose callbacks have not run yet.
func (js *JobSystem) Pending() int {
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.inFlight
}

/**
 * @brief Submits the provided job to be queued for execution. Must be called
 * from the goroutine that calls Update and Shutdown.
 */
func (js *JobSystem) Submit(jt JobTask) error {
	if jt.Run == nil {
		return fmt.Errorf("job %q has no work", jt.Name)
	}
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return ErrJobSystemClosed
	}
	if js.inFlight >= js.capacity {
		js.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrJobQueueFull, js.capacity)
	}
	js.inFlight++
	js.mu.Unlock()

	js.jobQueue <- jt
	return nil
}
