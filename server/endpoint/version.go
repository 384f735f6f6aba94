package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/microcosm/version"
)

type versionReport struct {
	Service string        `json:"service"`
	Banner  string        `json:"banner"`
	Build   *version.Info `json:"build"`
}

// Version reports the binary's build information for the node running
// serviceName. The banner matches the --version output of program.
func Version(program, serviceName string) gin.HandlerFunc {
	report := versionReport{
		Service: serviceName,
		Banner:  version.Banner(program),
		Build:   version.GetVersionInfo(),
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, report)
	}
}
