package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-portal/internal/config"
	"github.com/khoahotran/profile-portal/pkg/logger"
)

func TestNewTracerProvider_DisabledWithoutEndpoint(t *testing.T) {
	tp, err := NewTracerProvider(config.Config{}, logger.NewNopLogger(), "profile-portal")
	require.NoError(t, err)
	assert.Nil(t, tp)
}
