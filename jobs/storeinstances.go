package jobs

import "context"

// InstanceStorer writes one instance's bytes to its final destination.
// Close releases any connection or handle the storer is holding open
// between steps (e.g. a DICOM association), and is safe to call
// multiple times.
type InstanceStorer interface {
	StoreInstance(ctx context.Context, instance string) error
	Close()
}

// StoreInstancesJob stores a fixed list of instances one at a time,
// through an InstanceStorer supplied by the caller (e.g. a DICOM C-STORE
// association, or a local filesystem writer). It has no trailing step.
type StoreInstancesJob struct {
	*SetOfInstancesJob
	storer InstanceStorer
}

// NewStoreInstancesJob creates a StoreInstancesJob backed by storer.
func NewStoreInstancesJob(storer InstanceStorer) *StoreInstancesJob {
	j := &StoreInstancesJob{storer: storer}
	j.SetOfInstancesJob = NewSetOfInstancesJob("StoreInstances", j, false)
	return j
}

// HandleInstance implements InstanceHandler.
func (j *StoreInstancesJob) HandleInstance(ctx context.Context, instance string) error {
	return j.storer.StoreInstance(ctx, instance)
}

// ReleaseResources implements Job by closing the underlying storer's
// connection when the job is paused.
func (j *StoreInstancesJob) ReleaseResources() {
	j.storer.Close()
}

// ReconstructStoreInstancesJob builds a ReconstructFunc for registration
// with an Unserializer. newStorer is called once per reconstruction to
// build the InstanceStorer the restored job will use; it typically
// recreates whatever connection the original storer held.
func ReconstructStoreInstancesJob(newStorer func() InstanceStorer) ReconstructFunc {
	return func(snapshot *Snapshot) (Job, error) {
		j := NewStoreInstancesJob(newStorer())
		if err := j.RestoreFromSnapshot(snapshot); err != nil {
			return nil, err
		}
		return j, nil
	}
}
