package imdp_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestIMDP(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "IMDP Suite")
}
