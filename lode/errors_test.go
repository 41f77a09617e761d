package lode

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "op" }
func (timeoutErr) Timeout() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{os.ErrPermission, ErrPermissionDenied},
		{fmt.Errorf("open x: %w", os.ErrNotExist), ErrNotFound},
		{errors.New("NoSuchKey: the key does not exist"), ErrNotFound},
		{errors.New("write: no space left on device"), ErrDiskFull},
		{timeoutErr{}, ErrTimeout},
		{errors.New("context deadline exceeded"), ErrTimeout},
		{errors.New("SlowDown: reduce your request rate"), ErrThrottled},
		{errors.New("NoCredentialProviders: no valid providers"), ErrAuth},
		{errors.New("AccessDenied: Access Denied (403)"), ErrAccessDenied},
		{errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrNetwork},
		{errors.New("something odd"), ErrUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	cause := fmt.Errorf("put: %w", os.ErrPermission)
	err := WrapWriteError(cause, "datasets/x")

	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("errors.Is(err, ErrPermissionDenied) = false")
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("wrapped cause lost")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "write" || se.Path != "datasets/x" {
		t.Fatalf("StorageError = %+v", se)
	}
	if again := WrapReadError(err, "other"); again != err {
		t.Error("already classified errors must not be wrapped twice")
	}
	if WrapInitError(nil, "ds") != nil {
		t.Error("nil must stay nil")
	}
}
