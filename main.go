package main

import "labelbot/internal/app"

func main() {
	app.Main()
}
