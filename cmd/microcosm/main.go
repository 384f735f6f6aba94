// Command microcosm runs one node of a microcosm deployment.
//
//	microcosm [--http-port 5001] [--http-addr 127.0.0.1] a.yml
package main

func main() {
	Execute()
}
