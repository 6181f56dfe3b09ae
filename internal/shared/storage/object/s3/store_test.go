package s3

import "testing"

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/video.mp4", want: "user/video.mp4"},
		{name: "simple prefix", prefix: "root", key: "user/video.mp4", want: "root/user/video.mp4"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/video.mp4", want: "root/user/video.mp4"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/video.mp4", want: "root/user/video.mp4"},
		{name: "nested prefix", prefix: "root/sub", key: "user/video.mp4", want: "root/sub/user/video.mp4"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}
