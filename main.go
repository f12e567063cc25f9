package main

import (
	"github.com/pixperk/chugsql/cmd"
	"github.com/pixperk/chugsql/internal/logx"
)

func main() {
	logx.InitLogger()
	cmd.Execute()
}
