package resolver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// apiError implements smithy.APIError for test assertions.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string                 { return e.msg }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.msg }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

type mockS3 struct {
	objects map[string][]byte
	getErr  error
	lastKey string
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.lastKey = *in.Key
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[*in.Key]
	if !ok {
		return nil, &apiError{code: "NoSuchKey", msg: "no such key"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Resolver_ObjectKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		root   string
		key    string
		want   string
	}{
		{"under root with prefix", "images", "/data/img", "/data/img/cats/a.png", "images/cats/a.png"},
		{"under root no prefix", "", "/data/img", "/data/img/a.png", "a.png"},
		{"outside root", "p", "/data/img", "/other/b.png", "p/other/b.png"},
		{"prefix slashes trimmed", "/p/", "/data", "/data/c.png", "p/c.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewS3Resolver(&mockS3{}, "bucket", tt.prefix, tt.root)
			if got := r.ObjectKey(tt.key); got != tt.want {
				t.Errorf("ObjectKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestS3Resolver_Resolve(t *testing.T) {
	m := &mockS3{objects: map[string][]byte{"imgs/a.png": []byte("data")}}
	r := NewS3Resolver(m, "bucket", "imgs", "/root")
	data, err := r.Resolve(context.Background(), "/root/a.png")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("data = %q", data)
	}
}

func TestS3Resolver_NotFound(t *testing.T) {
	for _, code := range []string{"NoSuchKey", "NotFound"} {
		m := &mockS3{getErr: &apiError{code: code, msg: code}}
		r := NewS3Resolver(m, "bucket", "", "/root")
		_, err := r.Resolve(context.Background(), "/root/missing.png")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: err = %v, want ErrNotFound", code, err)
		}
	}
}

func TestS3Resolver_OtherError(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewS3Resolver(&mockS3{getErr: boom}, "bucket", "", "/root")
	_, err := r.Resolve(context.Background(), "/root/a.png")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("transport error must not be ErrNotFound")
	}
}

// isolateAWSConfig points the shared config files at empty paths so only the
// environment set by the test is seen.
func isolateAWSConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
}

func TestNewS3Client(t *testing.T) {
	isolateAWSConfig(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	ctx := context.Background()

	c, err := NewS3Client(ctx, S3Options{Region: "us-east-1", Endpoint: "http://localhost:9000", PathStyle: true})
	if err != nil {
		t.Fatal(err)
	}
	o := c.Options()
	if o.Region != "us-east-1" || !o.UsePathStyle {
		t.Errorf("options = %+v", o)
	}
	if o.BaseEndpoint == nil || *o.BaseEndpoint != "http://localhost:9000" {
		t.Errorf("endpoint = %v", o.BaseEndpoint)
	}
	creds, err := o.Credentials.Retrieve(ctx)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if creds.AccessKeyID != "id" || creds.SecretAccessKey != "secret" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestNewS3Client_RegionFromEnvironment(t *testing.T) {
	isolateAWSConfig(t)
	t.Setenv("AWS_REGION", "eu-west-1")

	c, err := NewS3Client(context.Background(), S3Options{})
	if err != nil {
		t.Fatal(err)
	}
	o := c.Options()
	if o.Region != "eu-west-1" {
		t.Errorf("region = %q", o.Region)
	}
	if o.UsePathStyle || o.BaseEndpoint != nil {
		t.Errorf("options = %+v", o)
	}
}
