package renderer

import "errors"

var (
	// ErrBindGroupLayoutRegistered is returned when a bind group layout is registered twice for the same type.
	ErrBindGroupLayoutRegistered = errors.New("bind group layout already registered")

	// ErrBindGroupLayoutNotRegistered is returned when a bind group layout is required for a type that was never registered.
	ErrBindGroupLayoutNotRegistered = errors.New("bind group layout not registered")

	// ErrPipelineLayoutRegistered is returned when a pipeline layout is registered twice for the same ordered set of types.
	ErrPipelineLayoutRegistered = errors.New("pipeline layout already registered")

	// ErrPipelineLayoutNotRegistered is returned when a pipeline layout is required for a set of types that was never registered.
	ErrPipelineLayoutNotRegistered = errors.New("pipeline layout not registered")

	// ErrFrameInProgress is returned by BeginFrame when the previous frame has not been ended.
	ErrFrameInProgress = errors.New("previous frame not yet ended")

	// ErrNoFrame is returned by EndFrame when no frame has been begun.
	ErrNoFrame = errors.New("no frame in progress")
)
