package graph

import "testing"

func TestImageSource_IsBuildAndRef(t *testing.T) {
	build := ImageSource{BuildContext: "./app"}
	if !build.IsBuild() {
		t.Fatal("expected a build context to be a build source")
	}
	if build.Ref() != "./app" {
		t.Fatalf("expected ref ./app, got %s", build.Ref())
	}

	pull := ImageSource{Image: "postgres:16"}
	if pull.IsBuild() {
		t.Fatal("expected an image reference not to be a build source")
	}
	if pull.Ref() != "postgres:16" {
		t.Fatalf("expected ref postgres:16, got %s", pull.Ref())
	}
}

func TestHealthCheck_Defaults(t *testing.T) {
	h := HealthCheck{}
	if h.Period().Seconds() != 5 {
		t.Fatalf("expected default period of 5s, got %v", h.Period())
	}
	if h.Timeout().Seconds() != 3 {
		t.Fatalf("expected default timeout of 3s, got %v", h.Timeout())
	}
	if h.MaxRetries() != 3 {
		t.Fatalf("expected default retries of 3, got %d", h.MaxRetries())
	}

	h2 := HealthCheck{Interval: 10, TimeoutSecs: 2, Retries: 5}
	if h2.Period().Seconds() != 10 {
		t.Fatalf("expected period of 10s, got %v", h2.Period())
	}
	if h2.Timeout().Seconds() != 2 {
		t.Fatalf("expected timeout of 2s, got %v", h2.Timeout())
	}
	if h2.MaxRetries() != 5 {
		t.Fatalf("expected retries of 5, got %d", h2.MaxRetries())
	}
}

func TestContainer_HasHealthCheck(t *testing.T) {
	without := Container{Name: "a"}
	if without.HasHealthCheck() {
		t.Fatal("expected no health check")
	}

	with := Container{Name: "a", HealthCheck: &HealthCheck{Type: ProbeTCP, Port: 80}}
	if !with.HasHealthCheck() {
		t.Fatal("expected a health check")
	}
}
