package signedxml

import (
	"fmt"
	"testing"

	"github.com/beevik/etree"
	. "github.com/smartystreets/goconvey/convey"
)

// Example 3.2 of http://www.w3.org/TR/2001/REC-xml-c14n-20010315#Examples
var whitespaceInput = `<doc>
   <clean>   </clean>
   <dirty>   A   B   </dirty>
   <mixed>
      A
      <clean>   </clean>
      B
      <dirty>   A   B   </dirty>
      C
   </mixed>
</doc>`

var startEndTagsInput = `<doc>
   <e1   />
   <e2   ></e2>
   <e3   name = "elem3"   id="elem3"   />
   <e4   name="elem4"   id="elem4"   ></e4>
</doc>`

var startEndTagsOutput = `<doc>
   <e1></e1>
   <e2></e2>
   <e3 id="elem3" name="elem3"></e3>
   <e4 id="elem4" name="elem4"></e4>
</doc>`

type canonicalizationCase struct {
	input      string
	output     string
	algorithm  string
	element    string
	prefixList string
}

func TestCanonicalization(t *testing.T) {
	e := engine(t)

	Convey("Given XML input", t, func() {
		cases := map[string]canonicalizationCase{
			"(whitespace, exclusive)": {input: whitespaceInput, output: whitespaceInput, algorithm: AlgExcC14N},
			"(whitespace, c14n 1.0)":  {input: whitespaceInput, output: whitespaceInput, algorithm: AlgC14N10},
			"(whitespace, c14n 1.1)":  {input: whitespaceInput, output: whitespaceInput, algorithm: AlgC14N11},
			"(start and end tags)":    {input: startEndTagsInput, output: startEndTagsOutput, algorithm: AlgExcC14N},
			"(comments removed)": {
				input: `<doc>Hello<!-- c --></doc>`, output: `<doc>Hello</doc>`, algorithm: AlgExcC14N,
			},
			"(comments kept)": {
				input: `<doc>Hello<!-- c --></doc>`, output: `<doc>Hello<!-- c --></doc>`, algorithm: AlgExcC14NWithComments,
			},
			"(comments kept, c14n 1.0)": {
				input: `<doc>Hello<!-- c --></doc>`, output: `<doc>Hello<!-- c --></doc>`, algorithm: AlgC14N10WithComments,
			},
			"(escaping)": {
				input: `<doc a="x&quot;y">1 &lt; 2</doc>`, output: `<doc a="x&quot;y">1 &lt; 2</doc>`, algorithm: AlgExcC14N,
			},
			"(inherited namespaces, exclusive)": {
				input:     `<a xmlns="urn:d" xmlns:x="urn:x" xmlns:y="urn:y"><b x:attr="1"/></a>`,
				output:    `<b xmlns="urn:d" xmlns:x="urn:x" x:attr="1"></b>`,
				algorithm: AlgExcC14N,
				element:   "b",
			},
			"(inherited namespaces, exclusive with prefix list)": {
				input:      `<a xmlns:y="urn:y"><b/></a>`,
				output:     `<b xmlns:y="urn:y"></b>`,
				algorithm:  AlgExcC14N,
				element:    "b",
				prefixList: "y",
			},
			"(inherited namespaces, inclusive)": {
				input:     `<a xmlns:y="urn:y"><b/></a>`,
				output:    `<b xmlns:y="urn:y"></b>`,
				algorithm: AlgC14N10,
				element:   "b",
			},
			"(unused namespaces, exclusive)": {
				input:     `<a xmlns:y="urn:y"><b/></a>`,
				output:    `<b></b>`,
				algorithm: AlgExcC14N,
				element:   "b",
			},
		}

		for description, test := range cases {
			Convey(fmt.Sprintf("When canonicalized %s", description), func() {
				doc := parse(t, test.input)
				el := doc.Root()
				if test.element != "" {
					el = findElement(doc, test.element)
				}
				before, _ := doc.Serialize()

				out, err := e.canonicalize(el, test.algorithm, test.prefixList)
				Convey("Then the result matches the expected output", func() {
					So(err, ShouldBeNil)
					So(string(out), ShouldEqual, test.output)
				})
				Convey("And the source document is untouched", func() {
					after, _ := doc.Serialize()
					So(string(after), ShouldEqual, string(before))
				})
			})
		}
	})

	Convey("Given an unknown canonicalization algorithm", t, func() {
		_, err := e.canonicalize(etree.NewElement("doc"), "urn:unknown", "")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "signedxml:")
	})

	Convey("Given a signed document", t, func() {
		doc := parse(t, sampleXML)
		So(e.SignDocument(doc, rsaKey(t), SignConfig{}), ShouldBeNil)
		signedInfo := dsigChild(signatures(doc)[0], "SignedInfo")

		Convey("When its canonical SignedInfo is canonicalized again", func() {
			first, err := e.canonicalize(signedInfo, AlgExcC14N, "")
			So(err, ShouldBeNil)

			again := etree.NewDocument()
			So(again.ReadFromBytes(first), ShouldBeNil)
			second, err := e.canonicalize(again.Root(), AlgExcC14N, "")
			So(err, ShouldBeNil)

			Convey("Then both results are identical", func() {
				So(string(second), ShouldEqual, string(first))
			})
			Convey("And SignedInfo declares the signature namespace", func() {
				So(string(first), ShouldStartWith, `<SignedInfo xmlns="http://www.w3.org/2000/09/xmldsig#">`)
			})
		})
	})
}

func TestProviders(t *testing.T) {
	Convey("Given the compiled in providers", t, func() {
		Convey("Then the default provider is always present", func() {
			So(Providers(), ShouldContain, DefaultProvider)
		})
		Convey("Then every provider implements every canonicalization algorithm", func() {
			for _, name := range Providers() {
				algorithms := providers[name]()
				for _, uri := range []string{
					AlgExcC14N, AlgExcC14NWithComments,
					AlgC14N10, AlgC14N10WithComments,
					AlgC14N11, AlgC14N11WithComments,
				} {
					So(algorithms, ShouldContainKey, uri)
				}
			}
		})
	})
}
