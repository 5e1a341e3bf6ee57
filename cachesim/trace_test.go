package cachesim_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/weiihann/loopsweep/cachesim"
	"github.com/weiihann/loopsweep/tracegen"
)

var _ = Describe("Trace", func() {
	parse := func(lines ...string) (*cachesim.Trace, error) {
		return cachesim.ParseTrace(strings.NewReader(strings.Join(lines, "\n")))
	}

	It("should parse the header and commands", func() {
		trace, err := parse("16 blocks", "4", "2l", "l 12", "", "s 3", "v", "p", "h", "")
		Expect(err).NotTo(HaveOccurred())

		Expect(trace.Type).To(Equal("2l"))
		Expect(trace.Cache).To(Equal(cachesim.Config{
			BlockCount: 16, BlockSize: 4, Ways: 2, Policy: cachesim.LRU,
		}))
		Expect(trace.Commands).To(Equal([]cachesim.Command{
			{Op: cachesim.OpLoad, Address: 12, Line: 4},
			{Op: cachesim.OpStore, Address: 3, Line: 6},
			{Op: cachesim.OpToggleVerbose, Line: 7},
			{Op: cachesim.OpPrint, Line: 8},
			{Op: cachesim.OpHitRate, Line: 9},
		}))
	})

	DescribeTable("rejects malformed traces",
		func(lines []string, msg string) {
			_, err := parse(lines...)
			Expect(err).To(MatchError(cachesim.ErrInvalidTrace))
			Expect(err.Error()).To(ContainSubstring(msg))
		},
		Entry("short header", []string{"16", "4"}, "missing header"),
		Entry("empty header line", []string{"16", "", "1"}, "empty header line 2"),
		Entry("non-numeric block count", []string{"x", "4", "1"}, "block count"),
		Entry("unknown cache type", []string{"16", "4", "8l"}, "invalid cache type: 8l"),
		Entry("unknown command", []string{"16", "4", "1", "l 1", "x 2"}, `"x" on line 5`),
		Entry("load without address", []string{"16", "4", "1", "l"}, "needs an address"),
		Entry("bad address", []string{"16", "4", "1", "s 12abc"}, "address on line 4"),
	)

	It("should fail to load a missing file", func() {
		_, err := cachesim.LoadTrace(filepath.Join(GinkgoT().TempDir(), "missing.trace"))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("couldn't find tracefile"))
	})
})

var _ = Describe("Simulator", func() {
	run := func(lines ...string) (string, error) {
		trace, err := cachesim.ParseTrace(strings.NewReader(strings.Join(lines, "\n")))
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		sim, err := cachesim.NewSimulator(trace, &out, nil)
		if err != nil {
			return "", err
		}

		err = sim.Run()

		return out.String(), err
	}

	It("should print the hit rate with the metric in the third field", func() {
		out, err := run("2", "2", "1", "l 0", "l 1", "l 4", "l 0", "h")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("\nHit rate: 25.000000%\n"))
		Expect(strings.Fields(out)[2]).To(Equal("25.000000%"))
	})

	It("should describe accesses while verbose", func() {
		out, err := run("2", "2", "1", "v", "l 0", "v", "s 1", "l 1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(
			"A read to address 0 looked for word 0 in block 0 and was a miss.\n"))
	})

	It("should describe associative accesses by set", func() {
		out, err := run("4", "1", "2r", "v", "l 3")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("A read to address 3 looked for word 0 in the set " +
			"starting with block 2 and was a miss.\n"))
	})

	It("should fail on a hit rate with no accesses", func() {
		_, err := run("2", "2", "1", "h")
		Expect(err).To(MatchError(ContainSubstring("line 4")))
	})

	It("should reject an impossible cache geometry", func() {
		_, err := run("3", "2", "1", "h")
		Expect(err).To(MatchError(cachesim.ErrInvalidTrace))
	})

	It("should simulate a generated unfused trace", func() {
		dir := GinkgoT().TempDir()
		gen := tracegen.NewGenerator(tracegen.Config{
			BlockCount: 16, WordSize: 4, CacheType: "1", Loop: 2,
		})
		_, err := gen.WriteFiles(dir)
		Expect(err).NotTo(HaveOccurred())

		trace, err := cachesim.LoadTrace(filepath.Join(dir, tracegen.UnfusedFile))
		Expect(err).NotTo(HaveOccurred())

		var out bytes.Buffer
		sim, err := cachesim.NewSimulator(trace, &out, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sim.Run()).To(Succeed())

		Expect(out.String()).To(Equal("\nHit rate: 66.666667%\n"))
		Expect(sim.Cache().Stats().Accesses).To(Equal(uint64(12)))
	})

	It("should run every cache type over both generated traces", func() {
		dir := GinkgoT().TempDir()

		for _, kind := range []string{"1", "2r", "2l", "4r", "4l"} {
			gen := tracegen.NewGenerator(tracegen.Config{
				BlockCount: 8, WordSize: 4, CacheType: kind, Loop: 30,
			})
			_, err := gen.WriteFiles(dir)
			Expect(err).NotTo(HaveOccurred())

			for _, name := range []string{tracegen.UnfusedFile, tracegen.FusedFile} {
				data, err := os.ReadFile(filepath.Join(dir, name))
				Expect(err).NotTo(HaveOccurred())

				trace, err := cachesim.ParseTrace(bytes.NewReader(data))
				Expect(err).NotTo(HaveOccurred())

				var out bytes.Buffer
				sim, err := cachesim.NewSimulator(trace, &out, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(sim.Run()).To(Succeed())
				Expect(out.String()).To(HavePrefix("\nHit rate: "))
			}
		}
	})
})
