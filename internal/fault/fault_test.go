package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWrapsAndClassifies(t *testing.T) {
	cause := errors.New("mic unplugged")
	err := fmt.Errorf("start capture: %w", New(RecognitionFailed, cause))

	require.ErrorIs(t, err, cause)
	require.Equal(t, RecognitionFailed, KindOf(err))
	require.Equal(t, "mic unplugged", Detail(err))
	require.Contains(t, err.Error(), "recognition_failed: mic unplugged")
}

func TestKindOfUnclassified(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
	require.Equal(t, Kind(""), KindOf(nil))
	require.Equal(t, "plain", Detail(errors.New("plain")))
	require.Equal(t, "", Detail(nil))
}

func TestNewWithNilCause(t *testing.T) {
	err := New(UnsupportedEnvironment, nil)
	require.Equal(t, "unsupported_environment: unsupported_environment", err.Error())
}

func TestFatalKinds(t *testing.T) {
	require.True(t, UnsupportedEnvironment.Fatal())
	require.True(t, RecognitionFailed.Fatal())
	require.False(t, TranslationFailed.Fatal())
	require.False(t, InvalidResponse.Fatal())
}
