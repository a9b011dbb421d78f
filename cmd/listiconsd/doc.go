// Command listiconsd serves composed player-list icons over HTTP and offers
// maintenance subcommands for the address directory and configuration.
//
//	listiconsd serve                  run the HTTP service
//	listiconsd render --uuid U        compose one icon to a file
//	listiconsd directory list         show recorded addresses
//	listiconsd config init            write a sample configuration
package main
