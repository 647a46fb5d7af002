package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBeforeSetup(t *testing.T) {
	assert.NotNil(t, Get(), "Get must self-initialize")
}

func TestSetupIsIdempotent(t *testing.T) {
	Setup("debug")
	first := Get()
	Setup("error")
	assert.Same(t, first, Get(), "second Setup must not replace the logger")
}

func TestWithHelpers(t *testing.T) {
	assert.NotNil(t, WithComponent("dispatch"))
	assert.NotNil(t, WithBackend("copr"))
	assert.NotNil(t, WithBatch("batch-1"))
	assert.NotNil(t, WithUnit("unit-1"))
}
