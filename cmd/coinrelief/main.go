// Command coinrelief turns a 3D scene into a printable coin bas-relief.
//
//	coinrelief --input statue.usda --diameter 30 --algorithm backcut
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
