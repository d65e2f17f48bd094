// Command localdeck is the operator CLI: registry listings, library sync,
// card URL generation, and configuration utilities. The daemon itself runs
// as localdeckd.
package main
