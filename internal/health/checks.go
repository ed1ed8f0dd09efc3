package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// FileCheck reports whether path exists and is a regular file. The assistant
// registers it for the recognizer model, which whisper only loads on the
// first listen, so a missing file would otherwise surface minutes after
// startup.
func FileCheck(name, path string) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory, want a file", path)
			}
			return nil
		},
	}
}

// DirsCheck reports whether every given directory exists. An empty list
// passes; an unconfigured feature is not a failure.
func DirsCheck(name string, dirs ...string) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			for _, dir := range dirs {
				info, err := os.Stat(dir)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					return fmt.Errorf("%s is not a directory", dir)
				}
			}
			return nil
		},
	}
}

// URLCheck reports whether the endpoint answers HTTP at all. Any status code
// counts as reachable; the probe asks about liveness, not correctness, since
// most provider base URLs reject unauthenticated requests. A nil client uses
// [http.DefaultClient].
func URLCheck(name, rawURL string, client *http.Client) Checker {
	if client == nil {
		client = http.DefaultClient
	}
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			return resp.Body.Close()
		},
	}
}
