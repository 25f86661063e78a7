package extension

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/panelrt/value"
)

type fakeExtension struct {
	methods []string
}

func (f *fakeExtension) Methods() []string { return f.methods }
func (f *fakeExtension) Call(_ context.Context, method string, _ []value.Value) (value.Value, error) {
	return value.String("called:" + method), nil
}

func TestRegistry_ExistsMethodsList(t *testing.T) {
	r := NewRegistry()
	r.Register("http", &fakeExtension{methods: []string{"get", "post"}})
	r.Register("kv", &fakeExtension{methods: []string{"get", "set"}})

	if !r.Exists("http") {
		t.Error("Exists(http) should be true")
	}
	if r.Exists("missing") {
		t.Error("Exists(missing) should be false")
	}
	if !r.HasMethod("http", "get") {
		t.Error("HasMethod(http, get) should be true")
	}
	if r.HasMethod("http", "delete") {
		t.Error("HasMethod(http, delete) should be false")
	}

	list := r.List()
	if len(list) != 2 || list[0] != "http" || list[1] != "kv" {
		t.Errorf("List() = %v, want sorted [http kv]", list)
	}
}

func TestRegistry_CallUnknownExtension(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Call(context.Background(), "missing", "get", nil); err == nil {
		t.Error("expected error calling unregistered extension")
	}
}

func TestRegistry_CallUnknownMethod(t *testing.T) {
	r := NewRegistry()
	r.Register("http", &fakeExtension{methods: []string{"get"}})
	if _, err := r.Call(context.Background(), "http", "delete", nil); err == nil {
		t.Error("expected error calling unregistered method")
	}
}

func TestHTTPExtension_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	ext := NewHTTPExtension(0)
	result, err := ext.Call(context.Background(), "get", []value.Value{value.String(srv.URL)})
	if err != nil {
		t.Fatal(err)
	}

	status, _ := result.Field("status")
	n, _ := status.AsNumber()
	if n != 200 {
		t.Errorf("status = %v, want 200", n)
	}
	body, _ := result.Field("body")
	s, _ := body.AsString()
	if s != "hello" {
		t.Errorf("body = %q, want %q", s, "hello")
	}
}

func TestKVExtension_SetGetIncr(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	ext := &KVExtension{client: client}
	defer ext.Close()

	ctx := context.Background()

	if _, err := ext.Call(ctx, "set", []value.Value{value.String("foo"), value.String("bar")}); err != nil {
		t.Fatal(err)
	}

	got, err := ext.Call(ctx, "get", []value.Value{value.String("foo")})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := got.AsString()
	if s != "bar" {
		t.Errorf("get(foo) = %q, want %q", s, "bar")
	}

	n1, err := ext.Call(ctx, "incr", []value.Value{value.String("counter")})
	if err != nil {
		t.Fatal(err)
	}
	n2, err := ext.Call(ctx, "incr", []value.Value{value.String("counter")})
	if err != nil {
		t.Fatal(err)
	}
	v1, _ := n1.AsNumber()
	v2, _ := n2.AsNumber()
	if v1 != 1 || v2 != 2 {
		t.Errorf("incr sequence = %v, %v, want 1, 2", v1, v2)
	}
}

func TestKVExtension_GetMissingKeyReturnsNull(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer mr.Close()

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	ext := &KVExtension{client: client}
	defer ext.Close()

	got, err := ext.Call(context.Background(), "get", []value.Value{value.String("missing")})
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsNull() {
		t.Errorf("get(missing) = %v, want null", got)
	}
}
