// Package gitcmd shells out to the system git binary. Only two operations
// are needed: cloning student repositories and initializing bare repos for
// the local test platform.
package gitcmd

import (
	"context"
	"os/exec"
	"strings"

	"github.com/edulab/reporover/internal/apperr"
)

// Clone runs `git clone <url> <dest>`. Combined output is captured so auth
// and network failures from git surface in the error message, with the URL's
// credentials masked.
func Clone(ctx context.Context, url, dest string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", url, dest)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return apperr.NewGit("git clone "+maskCredentials(url)+" failed: "+strings.TrimSpace(string(output)), err)
	}
	return nil
}

// InitBare runs `git init --bare <path>`.
func InitBare(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "git", "init", "--bare", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return apperr.NewGit("git init --bare failed: "+strings.TrimSpace(string(output)), err)
	}
	return nil
}

// maskCredentials strips userinfo from a clone URL for error messages.
func maskCredentials(url string) string {
	at := strings.Index(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return url
	}
	return url[:scheme+3] + "***@" + url[at+1:]
}
