package providers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingDirectory struct {
	listCalls   int
	invalidated int
	profiles    []Profile
}

func (d *countingDirectory) List(ctx context.Context) ([]Profile, error) {
	d.listCalls++
	return d.profiles, nil
}

func (d *countingDirectory) Invalidate(ctx context.Context) {
	d.invalidated++
}

func newCacheFixtures(t *testing.T) (*countingDirectory, Directory) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := &countingDirectory{profiles: []Profile{
		{ProviderID: "pr1", GivenName: "Grace", Specialty: "Cardiology"},
	}}
	return inner, NewCachedDirectory(inner, client, time.Minute, nil)
}

func TestCachedDirectoryServesSecondReadFromCache(t *testing.T) {
	inner, dir := newCacheFixtures(t)
	ctx := context.Background()

	first, err := dir.List(ctx)
	if err != nil {
		t.Fatalf("first List: %v", err)
	}
	second, err := dir.List(ctx)
	if err != nil {
		t.Fatalf("second List: %v", err)
	}

	if inner.listCalls != 1 {
		t.Errorf("inner list calls = %d, want 1", inner.listCalls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].ProviderID != "pr1" {
		t.Errorf("listings disagree: %+v vs %+v", first, second)
	}
}

func TestCachedDirectoryInvalidateForcesRefresh(t *testing.T) {
	inner, dir := newCacheFixtures(t)
	ctx := context.Background()

	if _, err := dir.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	dir.Invalidate(ctx)
	if _, err := dir.List(ctx); err != nil {
		t.Fatalf("List after invalidate: %v", err)
	}

	if inner.listCalls != 2 {
		t.Errorf("inner list calls = %d, want 2", inner.listCalls)
	}
	if inner.invalidated != 1 {
		t.Errorf("inner invalidations = %d, want 1", inner.invalidated)
	}
}

func TestNewCachedDirectoryNilClientPassthrough(t *testing.T) {
	inner := &countingDirectory{}
	if dir := NewCachedDirectory(inner, nil, time.Minute, nil); dir != Directory(inner) {
		t.Error("nil client should return the inner directory unchanged")
	}
}
