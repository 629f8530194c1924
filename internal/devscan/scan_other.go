//go:build !linux

package devscan

import "context"

func discover(ctx context.Context) (Found, error) {
	return Found{}, ErrUnsupported
}
