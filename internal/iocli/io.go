// Package iocli provides terminal input and output for the admin CLI.
package iocli

//go:generate moq -out io_mock.go . IO

// IO ввод-вывод команд администратора
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}
