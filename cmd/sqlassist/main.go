// Command sqlassist answers natural-language questions about SQL dumps.
package main

func main() {
	Execute()
}
