// Command vector-attribution serves and prints marketing attribution reports.
package main

func main() {
	Execute()
}
