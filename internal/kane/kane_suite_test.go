package kane_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestKane(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Kane Suite")
}
