package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           speechd API
// @version         1.0
// @description     HTTP API for local speech model management, streaming transcription and synthesis.
//
// @contact.name   speechd maintainers
// @contact.url    https://github.com/your-org/speechd
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
