package cmd

import (
	"github.com/frahmantamala/access-control/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("event publish", func() {
	It("accepts every audit event type", func() {
		for _, t := range events.AllAuthzEventTypes {
			Expect(publishEventCmd.ValidateArgs([]string{t})).To(Succeed())
		}
	})

	It("rejects types the service never publishes", func() {
		Expect(publishEventCmd.ValidateArgs([]string{"invoice.created"})).NotTo(Succeed())
		Expect(publishEventCmd.ValidateArgs(nil)).NotTo(Succeed())
	})

	It("is registered under the event command", func() {
		found, _, err := rootCmd.Find([]string{"event", "publish"})
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(Equal(publishEventCmd))
	})
})
