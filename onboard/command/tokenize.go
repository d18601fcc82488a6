package command

import "strings"

// Command is one tokenized line. Args is everything after the first space,
// untouched.
type Command struct {
	Name string
	Args string
}

// Tokenize splits line on its first space only.
func Tokenize(line string) Command {
	line = strings.TrimRight(line, "\r\n")
	name, args, _ := strings.Cut(strings.TrimLeft(line, " \t"), " ")
	return Command{Name: name, Args: args}
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + c.Args
}
