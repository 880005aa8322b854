package visibility

import "testing"

func TestHiddenPostIsNeverVisible(t *testing.T) {
	cases := [][3][]bool{
		{nil, nil, nil},
		{{true}, {true}, {true}},
		{{false}, nil, nil},
	}
	for _, c := range cases {
		if Visible(false, c[0], c[1], c[2]) {
			t.Fatalf("post with isPublic=false must be hidden (tags %v %v %v)", c[0], c[1], c[2])
		}
	}
}

func TestAnyHiddenTagHidesPublicPost(t *testing.T) {
	cases := []struct {
		name                                 string
		categories, collections, communities []bool
	}{
		{"hidden category", []bool{true, false}, nil, nil},
		{"hidden collection", nil, []bool{false}, []bool{true}},
		{"hidden community", []bool{true}, []bool{true}, []bool{true, true, false}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if Visible(true, c.categories, c.collections, c.communities) {
				t.Fatal("public post with a hidden tag must be hidden")
			}
		})
	}
}

func TestPublicPostVisible(t *testing.T) {
	if !Visible(true, nil, nil, nil) {
		t.Fatal("public post with no tags must be visible")
	}
	if !Visible(true, []bool{true}, []bool{true, true}, []bool{true}) {
		t.Fatal("public post with only public tags must be visible")
	}
}
