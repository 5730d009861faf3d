package jobs

import "context"

// InstanceTransformer rewrites one instance in place (e.g. anonymizing
// or renaming a DICOM instance before it is re-stored) and commits the
// batch once every instance has been transformed.
type InstanceTransformer interface {
	TransformInstance(ctx context.Context, instance string) error

	// Finalize runs once, after every instance has been processed (in
	// permissive mode this includes instances whose transform failed),
	// to commit the batch (e.g. updating the parent
	// resource's index). It is the job's trailing step.
	Finalize(ctx context.Context) error

	Close()
}

// ResourceModificationJob transforms a fixed list of instances and then
// runs a single finalization step, through an InstanceTransformer
// supplied by the caller.
type ResourceModificationJob struct {
	*SetOfInstancesJob
	transformer InstanceTransformer
}

// NewResourceModificationJob creates a ResourceModificationJob backed by
// transformer.
func NewResourceModificationJob(transformer InstanceTransformer) *ResourceModificationJob {
	j := &ResourceModificationJob{transformer: transformer}
	j.SetOfInstancesJob = NewSetOfInstancesJob("ResourceModification", j, true)
	return j
}

// HandleInstance implements InstanceHandler.
func (j *ResourceModificationJob) HandleInstance(ctx context.Context, instance string) error {
	return j.transformer.TransformInstance(ctx, instance)
}

// HandleTrailingStep implements TrailingStepHandler.
func (j *ResourceModificationJob) HandleTrailingStep(ctx context.Context) error {
	return j.transformer.Finalize(ctx)
}

// ReleaseResources implements Job by closing the underlying
// transformer's connection when the job is paused.
func (j *ResourceModificationJob) ReleaseResources() {
	j.transformer.Close()
}

// ReconstructResourceModificationJob builds a ReconstructFunc for
// registration with an Unserializer. newTransformer is called once per
// reconstruction to build the InstanceTransformer the restored job will
// use.
func ReconstructResourceModificationJob(newTransformer func() InstanceTransformer) ReconstructFunc {
	return func(snapshot *Snapshot) (Job, error) {
		j := NewResourceModificationJob(newTransformer())
		if err := j.RestoreFromSnapshot(snapshot); err != nil {
			return nil, err
		}
		return j, nil
	}
}
