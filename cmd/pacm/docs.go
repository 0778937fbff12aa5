package main

// General API documentation for swaggo. The repository includes no
// generated docs package.
//
// @title           pacm API
// @version         1.0
// @description     HTTP API for querying, installing, and uninstalling binary plugin packages.
//
// @contact.name   pacm maintainers
// @contact.url    https://github.com/your-org/pacm
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
