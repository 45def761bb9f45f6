package sizing

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTooBig = errors.New("too big")

func TestReadAllWithLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		size    int
		limit   uint64
		wantErr bool
	}{
		{name: "under limit", size: 10, limit: 11},
		{name: "at limit", size: 10, limit: 10},
		{name: "over limit", size: 11, limit: 10, wantErr: true},
		{name: "empty", size: 0, limit: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := ReadAllWithLimit(bytes.NewReader(make([]byte, tt.size)), tt.limit, errTooBig)
			if tt.wantErr {
				require.ErrorIs(t, err, errTooBig)
				return
			}
			require.NoError(t, err)
			assert.Len(t, data, tt.size)
		})
	}
}

func TestReadAllWithLimitHugeLimit(t *testing.T) {
	t.Parallel()

	_, err := ReadAllWithLimit(bytes.NewReader(nil), math.MaxUint64, errTooBig)
	require.ErrorIs(t, err, errTooBig)
}
