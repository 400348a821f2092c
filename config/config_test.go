package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Default", func() {
	It("should produce a valid configuration", func() {
		Expect(config.Default().Validate()).To(Succeed())
	})

	It("should disable every trace flag by default", func() {
		opts := config.Default()
		Expect(opts.TraceDecode).To(BeFalse())
		Expect(opts.TraceIR).To(BeFalse())
		Expect(opts.TraceAsm).To(BeFalse())
	})
})

var _ = Describe("Validate", func() {
	It("should reject a zero MaxGuestAddrHint", func() {
		opts := config.Default()
		opts.MaxGuestAddrHint = 0
		Expect(opts.Validate()).To(HaveOccurred())
	})

	It("should reject a non-positive MaxBlockInstrs", func() {
		opts := config.Default()
		opts.MaxBlockInstrs = 0
		Expect(opts.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("Clone", func() {
	It("should return an independently mutable copy", func() {
		opts := config.Default()
		clone := opts.Clone()
		clone.TraceDecode = true

		Expect(opts.TraceDecode).To(BeFalse())
		Expect(clone.TraceDecode).To(BeTrue())
	})
})

var _ = Describe("Save and Load", func() {
	It("should round-trip options through a JSON file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "opts.json")

		opts := config.Default()
		opts.TraceIR = true
		opts.MaxBlockInstrs = 17
		Expect(opts.Save(path)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.TraceIR).To(BeTrue())
		Expect(loaded.MaxBlockInstrs).To(Equal(17))
	})

	It("should overlay only the fields a partial JSON file sets", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "partial.json")
		Expect(os.WriteFile(path, []byte(`{"trace_asm": true}`), 0644)).To(Succeed())

		loaded, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.TraceAsm).To(BeTrue())
		Expect(loaded.MaxBlockInstrs).To(Equal(config.Default().MaxBlockInstrs))
	})

	It("should report an error for a missing file", func() {
		_, err := config.Load(filepath.Join(GinkgoT().TempDir(), "missing.json"))
		Expect(err).To(HaveOccurred())
	})
})
