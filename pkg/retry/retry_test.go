package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "dex_trader/pkg/errors"

	"github.com/stretchr/testify/assert"
)

var fastPolicy = Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func TestDo(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"success first try", []error{nil}, 1, nil},
		{"transient then success", []error{fmt.Errorf("x: %w", apperrors.ErrIndexerUnavailable), nil}, 2, nil},
		{"permanent error", []error{apperrors.ErrMarketNotFound}, 1, apperrors.ErrMarketNotFound},
		{"attempts exhausted", []error{apperrors.ErrNetwork, apperrors.ErrNetwork, apperrors.ErrRateLimitExceeded, nil}, 3, apperrors.ErrRateLimitExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastPolicy, nil, func(context.Context) error {
				err := tt.errs[calls]
				calls++
				return err
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := Policy{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second}
	err := Do(ctx, policy, func(error) bool { return true }, func(context.Context) error {
		return errors.New("flaky")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
