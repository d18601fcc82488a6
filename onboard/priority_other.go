//go:build !linux

package onboard

func RaisePriority(nice int) error {
	return nil
}
