package queue

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"atsfit/internal/errors"
)

type fakeDelivery struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeDelivery) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeDelivery) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestRequeue(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"plain error", stderrors.New("broker hiccup"), true},
		{"network", errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "slow", nil), true},
		{"embedding", errors.NewModelError(errors.ErrCodeEmbeddingFailed, "down", nil), true},
		{"missing input", errors.NewValidationError(errors.ErrCodeMissingInput, "empty", nil), false},
		{"unsupported", errors.NewValidationError(errors.ErrCodeUnsupportedFormat, "odt", nil), false},
		{"wrapped validation", fmt.Errorf("job 1: %w",
			errors.NewValidationError(errors.ErrCodeInvalidRequest, "bad json", nil)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Requeue(tt.err))
		})
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		acked    bool
		requeued bool
	}{
		{"success acks", nil, true, false},
		{"transient failure requeues", stderrors.New("timeout"), false, true},
		{"validation failure drops", errors.NewValidationError(errors.ErrCodeMissingInput, "empty", nil), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDelivery{}
			settle(d, tt.err, nil)
			assert.Equal(t, tt.acked, d.acked)
			assert.Equal(t, !tt.acked, d.nacked)
			assert.Equal(t, tt.requeued, d.requeued)
		})
	}
}
