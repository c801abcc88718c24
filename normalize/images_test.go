package normalize

import (
	"reflect"
	"testing"
)

func TestNormalizeImages_ResolvesRelativeURLs(t *testing.T) {
	got := NormalizeImages(
		[]string{"/images/a.jpg", "b.jpg", "//cdn.example.com/c.jpg"},
		"https://shop.example.com/products/widget",
		10,
	)
	want := []string{
		"https://shop.example.com/images/a.jpg",
		"https://shop.example.com/products/b.jpg",
		"https://cdn.example.com/c.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeImages_DedupPreservesOrder(t *testing.T) {
	got := NormalizeImages(
		[]string{
			"https://cdn.example.com/1.jpg",
			"https://cdn.example.com/2.jpg",
			"https://cdn.example.com/1.jpg",
			"https://cdn.example.com/3.jpg",
		},
		"https://shop.example.com/p",
		10,
	)
	want := []string{
		"https://cdn.example.com/1.jpg",
		"https://cdn.example.com/2.jpg",
		"https://cdn.example.com/3.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeImages_TrackingVariantsCollapse(t *testing.T) {
	// The same asset with different campaign tags is one image.
	got := NormalizeImages(
		[]string{
			"https://cdn.example.com/1.jpg?utm_source=feed&v=2",
			"https://cdn.example.com/1.jpg?v=2&utm_campaign=sale",
		},
		"https://shop.example.com/p",
		10,
	)
	if len(got) != 1 {
		t.Fatalf("got %d images, want 1: %v", len(got), got)
	}
	if got[0] != "https://cdn.example.com/1.jpg?v=2" {
		t.Errorf("got %q", got[0])
	}
}

func TestNormalizeImages_CapIsDeterministic(t *testing.T) {
	raw := []string{
		"https://cdn.example.com/1.jpg",
		"https://cdn.example.com/2.jpg",
		"https://cdn.example.com/3.jpg",
		"https://cdn.example.com/4.jpg",
	}
	a := NormalizeImages(raw, "https://shop.example.com/p", 2)
	b := NormalizeImages(raw, "https://shop.example.com/p", 2)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("cap not deterministic: %v vs %v", a, b)
	}
	if len(a) != 2 || a[0] != "https://cdn.example.com/1.jpg" {
		t.Errorf("cap should keep the first entries in order, got %v", a)
	}
}

func TestNormalizeImages_DropsUnusableEntries(t *testing.T) {
	got := NormalizeImages(
		[]string{"data:image/png;base64,AAAA", "javascript:void(0)", "", "   "},
		"https://shop.example.com/p",
		10,
	)
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}
