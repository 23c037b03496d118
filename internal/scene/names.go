package scene

import "fmt"

// UniqueNames hands out node names, suffixing repeats with _1, _2, ...
// Animation channels address nodes by name, so adapters name every node
// through one UniqueNames.
type UniqueNames map[string]int

// Take returns name, or a suffixed variant if name was taken before.
func (u UniqueNames) Take(name string) string {
	n := u[name]
	u[name] = n + 1
	if n == 0 {
		return name
	}
	return u.Take(fmt.Sprintf("%s_%d", name, n))
}
