// Copyright 2024 The lxcwatch authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lineio

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// brokenReader returns 0 bytes without signalling end-of-stream, violating
// the pump's protocol.
type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, nil }

// sickReader fails after some data.
type sickReader struct {
	data io.Reader
	err  error
}

func (r *sickReader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	if err == io.EOF {
		return n, r.err
	}
	return n, err
}

var _ = Describe("stream pump", func() {

	It("pumps a stream to its end and finalizes the sink once", func() {
		c := &Capture{}
		Expect(Pump(strings.NewReader("do not adjust your set"), c)).To(Succeed())
		Expect(c.Finalized()).To(BeTrue())
		Expect(string(c.Bytes())).To(Equal("do not adjust your set"))
	})

	It("pumps into a framer", func() {
		var lines []string
		f := &Framer{Line: func(line []byte) { lines = append(lines, string(line)) }}
		Expect(Pump(strings.NewReader("foo\nbar\n"), f)).To(Succeed())
		Expect(lines).To(Equal([]string{"foo", "bar"}))
	})

	It("aborts loudly on an empty read without end-of-stream", func() {
		err := Pump(brokenReader{}, &Capture{})
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, ErrEmptyRead)).To(BeTrue())
	})

	It("reports read failures without finalizing the sink", func() {
		c := &Capture{}
		err := Pump(&sickReader{
			data: strings.NewReader("partial"),
			err:  errors.New("D'oh!"),
		}, c)
		Expect(err).To(HaveOccurred())
		Expect(c.Finalized()).To(BeFalse())
		Expect(string(c.Bytes())).To(Equal("partial"))
	})

})
