// Command efb seeds the EfB waste-code catalog from a certificate and serves
// AVV lookups against it.
package main

func main() {
	Execute()
}
