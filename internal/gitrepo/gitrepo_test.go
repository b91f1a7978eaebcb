package gitrepo

import "testing"

func TestParseRemote(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"https", "https://github.com/user/repo.git", "user/repo", false},
		{"https no suffix", "https://github.com/user/repo", "user/repo", false},
		{"https trailing slash", "https://github.com/user/repo/", "user/repo", false},
		{"ssh", "git@github.com:user/repo.git", "user/repo", false},
		{"ssh no suffix", "git@github.com:user/repo", "user/repo", false},
		{"git protocol", "git://github.com/user/repo.git", "user/repo", false},
		{"not github", "https://gitlab.com/user/repo.git", "", true},
		{"garbage", "not-a-url", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRemote(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRemote(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRemote(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
