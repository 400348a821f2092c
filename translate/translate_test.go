package translate_test

import (
	"encoding/binary"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64xlate/config"
	"github.com/sarchlab/rv64xlate/emitter"
	"github.com/sarchlab/rv64xlate/translate"
)

func TestTranslate(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Translate Suite")
}

func encodeWord(w uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, w)
	return b
}

var addrs = emitter.DispatchAddrs{ChainMe: 0x1000, Indirect: 0x2000, Assisted: 0x3000}

var _ = Describe("Unit.Translate", func() {
	var opts *config.Options

	BeforeEach(func() { opts = config.Default() })

	It("should translate a single-instruction block terminated by ecall", func() {
		// addi a0, zero, 5
		addi := uint32(5)<<20 | uint32(0)<<15 | uint32(10)<<7 | 0b0010011
		// ecall
		ecall := uint32(0b1110011)

		cursor := append(encodeWord(addi), encodeWord(ecall)...)

		u := translate.New(opts, addrs, nil)
		result, err := u.Translate(cursor, 0x8000_0000)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.GuestLen).To(Equal(8))
		Expect(result.Code).NotTo(BeEmpty())
	})

	It("should stop at MaxBlockInstrs even without a terminating exit", func() {
		opts.MaxBlockInstrs = 1
		nop := uint32(0)<<20 | uint32(0)<<15 | uint32(0)<<7 | 0b0010011 // addi zero, zero, 0
		cursor := append(encodeWord(nop), encodeWord(nop)...)

		u := translate.New(opts, addrs, nil)
		_, err := u.Translate(cursor, 0x8000_0000)

		Expect(err).To(HaveOccurred())
	})

	It("should reject an empty cursor that cannot decode a first instruction", func() {
		u := translate.New(opts, addrs, nil)
		_, err := u.Translate(nil, 0x8000_0000)
		Expect(err).To(HaveOccurred())
	})

	It("should leave a caller's copy of an earlier result intact across later calls", func() {
		addi := uint32(5)<<20 | uint32(0)<<15 | uint32(10)<<7 | 0b0010011
		ecall := uint32(0b1110011)
		cursor := append(encodeWord(addi), encodeWord(ecall)...)

		u := translate.New(opts, addrs, nil)
		first, err := u.Translate(cursor, 0x8000_0000)
		Expect(err).NotTo(HaveOccurred())
		firstCopy := append([]byte(nil), first.Code...)

		_, err = u.Translate(cursor, 0x8000_1000)
		Expect(err).NotTo(HaveOccurred())

		again, err := u.Translate(cursor, 0x8000_0000)
		Expect(err).NotTo(HaveOccurred())
		Expect(firstCopy).To(Equal(again.Code), "a copy made before reuse must stay intact")
	})
})
