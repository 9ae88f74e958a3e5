package registry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const dataset = `[
  {"key": "IPC-TM-1001", "name": "Aishwarya Krishnamurthy Balasubramanian", "email": "aish@example.com"},
  {"key": "ipc-tm-1002", "name": "Grace Hopper", "secondaryField": "Compilers for Everyone"},
  {"key": "", "name": "Nobody"}
]`

type mockObjects struct {
	mock.Mock
}

func (m *mockObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte(dataset), 0o644))
	return path
}

func TestLookupResolution(t *testing.T) {
	r := New()
	require.NoError(t, r.Load(context.Background(), writeDataset(t)))
	assert.Equal(t, 2, r.Len())

	res := r.Lookup("IPC-TM-1001")
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "Aishwarya Krishnamurthy Balasubramanian", res.Record.Name)
	assert.Equal(t, "aish@example.com", res.Record.Email)

	res = r.Lookup("XX-0000")
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Nil(t, res.Record)
	assert.Equal(t, "XX-0000", res.Key)
}

func TestLookupNormalizesKey(t *testing.T) {
	r := New()
	require.NoError(t, r.Load(context.Background(), writeDataset(t)))

	res := r.Lookup("  ipc-tm-1002 ")
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "IPC-TM-1002", res.Key)
	assert.Equal(t, "Compilers for Everyone", res.Record.Title)

	assert.Equal(t, StatusIdle, r.Lookup("   ").Status)
}

func TestLookupPendingUntilLoaded(t *testing.T) {
	r := New()
	assert.Equal(t, StatusPending, r.Lookup("IPC-TM-1001").Status)
	assert.ErrorIs(t, r.Err(), ErrNotLoaded)
	assert.False(t, r.Ready())
	select {
	case <-r.Loaded():
		t.Fatal("Loaded must stay open before a dataset arrives")
	default:
	}

	err := r.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, ErrLoadFailed)
	assert.Equal(t, StatusPending, r.Lookup("IPC-TM-1001").Status)
	assert.ErrorIs(t, r.Err(), ErrLoadFailed)

	// 失败后可以重试
	require.NoError(t, r.Load(context.Background(), writeDataset(t)))
	assert.True(t, r.Ready())
	select {
	case <-r.Loaded():
	default:
		t.Fatal("Loaded must be closed after a successful load")
	}
	assert.NoError(t, r.Err())
	assert.Equal(t, StatusFound, r.Lookup("IPC-TM-1001").Status)
}

func TestLoadRejectsMalformedDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"key": "not an array"}`), 0o644))
	r := New()
	err := r.Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrInvalidDataset)
	assert.Equal(t, StatusPending, r.Lookup("IPC-TM-1001").Status)
}

func TestLoadOnce(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = io.WriteString(w, dataset)
	}))
	defer srv.Close()

	r := New(WithHTTPClient(srv.Client()))
	require.NoError(t, r.Load(context.Background(), srv.URL))
	require.NoError(t, r.Load(context.Background(), srv.URL))
	assert.Equal(t, 1, hits)
	assert.Equal(t, StatusFound, r.Lookup("ipc-tm-1001").Status)
}

func TestLoadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := New(WithHTTPClient(srv.Client()))
	err := r.Load(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrLoadFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestLoadFromObjectStore(t *testing.T) {
	objects := &mockObjects{}
	objects.On("GetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return *in.Bucket == "events" && *in.Key == "registry/records.json"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(dataset))}, nil).Once()

	r := New(WithObjectClient(objects))
	require.NoError(t, r.Load(context.Background(), "s3://events/registry/records.json"))
	assert.Equal(t, StatusFound, r.Lookup("IPC-TM-1001").Status)
	objects.AssertExpectations(t)
}

func TestLoadFromObjectStoreErrors(t *testing.T) {
	err := New().Load(context.Background(), "s3://events/records.json")
	assert.ErrorIs(t, err, ErrNoObjectClient)

	objects := &mockObjects{}
	objects.On("GetObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))
	r := New(WithObjectClient(objects))
	err = r.Load(context.Background(), "s3://events/records.json")
	require.ErrorIs(t, err, ErrLoadFailed)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, StatusPending, r.Lookup("IPC-TM-1001").Status)
}

func TestReplaceFirstRecordWins(t *testing.T) {
	r := New()
	r.Replace([]Record{
		{Key: "a-1", Name: "First"},
		{Key: "A-1 ", Name: "Second"},
	})
	res := r.Lookup("a-1")
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "First", res.Record.Name)
	assert.Equal(t, map[string]any{"key": "a-1", "name": "First", "title": "", "email": ""}, res.Record.Fields())
}
