package postgres

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucore/fincore-backend/internal/domain"
)

func TestStorageErr_HidesDriverDetails(t *testing.T) {
	driverErr := errors.New(`pq: could not connect to server "10.0.0.5:5432": connection refused`)

	err := storageErr("create transaction", driverErr)

	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, "create transaction: "+domain.ErrStorageUnavailable.Error(), err.Error(),
		"the returned message carries only the operation and the stable condition")
	assert.NotContains(t, err.Error(), "10.0.0.5")
	assert.NotContains(t, err.Error(), "pq:")
}
