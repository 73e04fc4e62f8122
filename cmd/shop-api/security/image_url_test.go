package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageURLValidator(t *testing.T) {
	v := NewImageURLValidator()

	valid := []string{
		"https://cdn.example.com/p/mug.jpg",
		"http://images.example.org:8080/a.png?v=2",
		"https://93.184.216.34/mug.webp",
		"https://[2606:2800:220:1:248:1893:25c8:1946]/mug.jpg",
	}
	for _, u := range valid {
		assert.NoError(t, v.Validate(u), u)
	}

	invalid := map[string]string{
		"ftp://cdn.example.com/mug.jpg":  "scheme",
		"file:///etc/passwd":             "scheme",
		"cdn.example.com/mug.jpg":        "scheme",
		"https:///mug.jpg":               "host is required",
		"http://localhost:9000/mug.jpg":  "not public",
		"http://img.localhost/mug.jpg":   "not public",
		"http://127.0.0.1/mug.jpg":       "loopback",
		"http://[::1]/mug.jpg":           "loopback",
		"http://10.1.2.3/mug.jpg":        "private",
		"http://192.168.0.10/mug.jpg":    "private",
		"http://169.254.169.254/latest":  "link-local",
		"http://0.0.0.0/mug.jpg":         "unspecified",
		"http://239.1.2.3/mug.jpg":       "multicast",
		"http://%zz/mug.jpg":             "malformed",
	}
	for u, want := range invalid {
		err := v.Validate(u)
		if assert.Error(t, err, u) {
			assert.Contains(t, err.Error(), want, u)
		}
	}
}
