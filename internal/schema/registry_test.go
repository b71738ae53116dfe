package schema

import "testing"

func userKind() *Kind {
	return NewKind("user", "users", []*Field{
		{Name: "id", Type: TypeUUID, Required: true, Attribute: true},
		{Name: "firstName", Type: TypeString, Required: true},
		{Name: "email", Type: TypeEmail, Required: true, Unique: true},
		{Name: "posts", Type: TypeRefList, Target: "post", Via: "owner"},
	})
}

func postKind() *Kind {
	return NewKind("post", "posts", []*Field{
		{Name: "id", Type: TypeUUID, Required: true, Attribute: true},
		{Name: "text", Type: TypeText, Required: true},
		{Name: "owner", Type: TypeRef, Required: true, Target: "user"},
	})
}

func TestRegistry(t *testing.T) {
	t.Run("register and get kind", func(t *testing.T) {
		registry := NewRegistry()

		if err := registry.Register(userKind()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		kind, exists := registry.Get("user")
		if !exists {
			t.Fatal("kind should exist")
		}
		if kind.Name != "user" || kind.Plural != "users" {
			t.Errorf("unexpected kind %s/%s", kind.Name, kind.Plural)
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		registry := NewRegistry()

		registry.Register(userKind())
		if err := registry.Register(userKind()); err == nil {
			t.Error("expected error for duplicate registration")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(userKind())
		registry.Register(postKind())

		names := registry.List()
		if len(names) != 2 || names[0] != "post" || names[1] != "user" {
			t.Errorf("unexpected list: %v", names)
		}
	})
}

func TestValidateAll(t *testing.T) {
	t.Run("valid mutual references", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(userKind())
		registry.Register(postKind())

		if err := registry.ValidateAll(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("reference to unknown kind", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(userKind())

		if err := registry.ValidateAll(); err == nil {
			t.Error("expected error for unknown target kind")
		}
	})

	t.Run("reverse collection must point back", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(NewKind("user", "", []*Field{
			{Name: "id", Type: TypeUUID, Required: true},
			{Name: "posts", Type: TypeRefList, Target: "post", Via: "text"},
		}))
		registry.Register(postKind())

		if err := registry.ValidateAll(); err == nil {
			t.Error("expected error for via field that is not a back reference")
		}
	})
}

func TestValidateStructural(t *testing.T) {
	t.Run("duplicate field names", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Register(NewKind("user", "", []*Field{
			{Name: "id", Type: TypeUUID},
			{Name: "id", Type: TypeString},
		}))
		if err == nil {
			t.Error("expected error for duplicate field")
		}
	})

	t.Run("missing id field", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Register(NewKind("user", "", []*Field{
			{Name: "email", Type: TypeEmail},
		}))
		if err == nil {
			t.Error("expected error for missing id field")
		}
	})

	t.Run("reference without target", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Register(NewKind("post", "", []*Field{
			{Name: "id", Type: TypeUUID},
			{Name: "owner", Type: TypeRef},
		}))
		if err == nil {
			t.Error("expected error for reference without target")
		}
	})
}

func TestKindEdges(t *testing.T) {
	kind := userKind()

	edge, ok := kind.Edge("posts")
	if !ok {
		t.Fatal("expected posts edge")
	}
	if edge.Cardinality != CardinalityMany || edge.Target != "post" || edge.Via != "owner" {
		t.Errorf("unexpected edge: %+v", edge)
	}

	post := postKind()
	edge, ok = post.Edge("owner")
	if !ok {
		t.Fatal("expected owner edge")
	}
	if edge.Cardinality != CardinalityOne || edge.Target != "user" {
		t.Errorf("unexpected edge: %+v", edge)
	}

	if _, ok := post.Edge("text"); ok {
		t.Error("scalar field must not produce an edge")
	}
}

func TestStoredFields(t *testing.T) {
	kind := userKind()
	for _, f := range kind.StoredFields() {
		if f.Type == TypeRefList {
			t.Errorf("stored fields must exclude reverse collections, got %s", f.Name)
		}
	}
	if len(kind.StoredFields()) != 3 {
		t.Errorf("expected 3 stored fields, got %d", len(kind.StoredFields()))
	}
}
