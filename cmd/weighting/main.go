package main

import "github.com/yungbote/weighting-backend/cmd/weighting/cmd"

func main() {
	cmd.Execute()
}
