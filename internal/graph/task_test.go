package graph

import "testing"

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{
			name: "valid",
			task: Task{
				Name: "t",
				Main: "web",
				Containers: []Container{
					{Name: "db", Image: ImageSource{Image: "postgres:16"}},
					{Name: "web", Image: ImageSource{Image: "myapp:1"}, DependsOn: []string{"db"}},
				},
			},
		},
		{
			name:    "no name",
			task:    Task{Main: "web", Containers: []Container{{Name: "web", Image: ImageSource{Image: "x"}}}},
			wantErr: true,
		},
		{
			name:    "main not declared",
			task:    Task{Name: "t", Main: "missing", Containers: []Container{{Name: "web", Image: ImageSource{Image: "x"}}}},
			wantErr: true,
		},
		{
			name: "duplicate container name",
			task: Task{
				Name: "t", Main: "web",
				Containers: []Container{
					{Name: "web", Image: ImageSource{Image: "x"}},
					{Name: "web", Image: ImageSource{Image: "y"}},
				},
			},
			wantErr: true,
		},
		{
			name: "both build and image set",
			task: Task{
				Name: "t", Main: "web",
				Containers: []Container{
					{Name: "web", Image: ImageSource{BuildContext: ".", Image: "y"}},
				},
			},
			wantErr: true,
		},
		{
			name: "neither build nor image set",
			task: Task{
				Name: "t", Main: "web",
				Containers: []Container{{Name: "web"}},
			},
			wantErr: true,
		},
		{
			name: "undeclared dependency",
			task: Task{
				Name: "t", Main: "web",
				Containers: []Container{
					{Name: "web", Image: ImageSource{Image: "x"}, DependsOn: []string{"ghost"}},
				},
			},
			wantErr: true,
		},
		{
			name: "cycle",
			task: Task{
				Name: "t", Main: "a",
				Containers: []Container{
					{Name: "a", Image: ImageSource{Image: "x"}, DependsOn: []string{"b"}},
					{Name: "b", Image: ImageSource{Image: "x"}, DependsOn: []string{"a"}},
				},
			},
			wantErr: true,
		},
		{
			name: "invalid port",
			task: Task{
				Name: "t", Main: "web",
				Containers: []Container{
					{Name: "web", Image: ImageSource{Image: "x"}, Ports: []PortMapping{{Local: 0, Container: 80}}},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTask_TopologicalLayers(t *testing.T) {
	task := Task{
		Name: "t", Main: "web",
		Containers: []Container{
			{Name: "db", Image: ImageSource{Image: "postgres:16"}},
			{Name: "cache", Image: ImageSource{Image: "redis:7"}},
			{Name: "web", Image: ImageSource{Image: "myapp:1"}, DependsOn: []string{"db", "cache"}},
		},
	}

	layers, err := task.TopologicalLayers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d: %v", len(layers), layers)
	}
	if len(layers[0]) != 2 {
		t.Fatalf("expected db and cache in the first layer, got %v", layers[0])
	}
	if len(layers[1]) != 1 || layers[1][0] != "web" {
		t.Fatalf("expected web alone in the second layer, got %v", layers[1])
	}
}

func TestTask_MainContainer(t *testing.T) {
	task := Task{
		Name: "t", Main: "web",
		Containers: []Container{{Name: "web", Image: ImageSource{Image: "x"}}},
	}
	c, err := task.MainContainer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "web" {
		t.Fatalf("expected web, got %s", c.Name)
	}

	task.Main = "ghost"
	if _, err := task.MainContainer(); err == nil {
		t.Fatal("expected an error for an undeclared main container")
	}
}
