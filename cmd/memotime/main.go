// Command memotime drives synthetic instruction traces through the
// cache/fetch/issue timing models, or exercises the TAGE predictor alone.
package main

import "github.com/sarchlab/memotime/cmd/memotime/cmd"

func main() {
	cmd.Execute()
}
