package schema

import "testing"

const sampleSchema = `
kinds:
  - name: user
    plural: users
    fields:
      - {name: id, type: uuid, required: true, attr: true}
      - {name: firstName, type: string, required: true}
      - {name: email, type: email, required: true, unique: true}
      - {name: posts, type: "ref[]", target: post, via: owner}
  - name: post
    fields:
      - {name: id, type: uuid, required: true, attr: true}
      - {name: text, type: text, required: true}
      - {name: likes, type: int}
      - {name: owner, type: ref, required: true, target: user}
`

func TestLoad(t *testing.T) {
	reg, err := Load([]byte(sampleSchema))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reg.Count() != 2 {
		t.Fatalf("expected 2 kinds, got %d", reg.Count())
	}

	user, _ := reg.Get("user")
	if user.Plural != "users" {
		t.Errorf("expected plural users, got %s", user.Plural)
	}

	post, _ := reg.Get("post")
	if post.Plural != "posts" {
		t.Errorf("expected default plural posts, got %s", post.Plural)
	}

	email, ok := user.Field("email")
	if !ok || email.Type != TypeEmail || !email.Unique {
		t.Errorf("unexpected email field: %+v", email)
	}

	edge, ok := user.Edge("posts")
	if !ok || edge.Target != "post" || edge.Via != "owner" {
		t.Errorf("unexpected posts edge: %+v", edge)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"invalid yaml", "kinds: ["},
		{"unknown type", "kinds:\n  - name: user\n    fields:\n      - {name: id, type: blob}"},
		{"dangling reference", `
kinds:
  - name: post
    fields:
      - {name: id, type: uuid}
      - {name: owner, type: ref, target: user}
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load([]byte(tc.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
