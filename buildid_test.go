package buildwatch

import "testing"

func TestBuildIDFromPath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		want   BuildID
		wantOK bool
	}{
		{"copr build page", "/coprs/alice/demo/build/1234/", "1234", true},
		{"bare", "/build/7", "7", true},
		{"first match wins", "/build/12/build/34", "12", true},
		{"digits only", "/build/56abc", "56", true},
		{"non-numeric", "/build/latest", "", false},
		{"no build segment", "/coprs/alice/demo/", "", false},
		{"builds plural", "/builds/99", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BuildIDFromPath(tt.path)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("BuildIDFromPath(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPage_Navigate(t *testing.T) {
	p := NewPage("/")
	if _, ok := BuildIDFromPath(p.Path()); ok {
		t.Fatal("root path should carry no build id")
	}

	p.Navigate("/coprs/alice/demo/build/42/")
	id, ok := BuildIDFromPath(p.Path())
	if !ok || id != "42" {
		t.Errorf("after Navigate got (%q, %v), want (42, true)", id, ok)
	}
}

func TestStaticPage(t *testing.T) {
	var pc PageContext = StaticPage("/build/5")
	if pc.Path() != "/build/5" {
		t.Errorf("Path() = %q", pc.Path())
	}
}
