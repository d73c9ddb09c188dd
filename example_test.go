package signedxml_test

import (
	"crypto/elliptic"
	"fmt"

	"github.com/moov-io/signedxml"
	"github.com/moov-io/signedxml/keys"
)

func Example() {
	key, err := keys.GenerateRSA(2048)
	if err != nil {
		panic(err)
	}

	doc, err := signedxml.Parse([]byte(`<Invoice ID="inv-1"><Number>42</Number></Invoice>`))
	if err != nil {
		panic(err)
	}

	engine := signedxml.DefaultEngine()
	if err := engine.SignDocument(doc, key, signedxml.SignConfig{ReferenceURI: "#inv-1"}); err != nil {
		panic(err)
	}

	valid, err := engine.Validate(doc, &key.PublicKey)
	if err != nil {
		panic(err)
	}
	fmt.Println(valid)
	// Output: true
}

func ExampleEngine_SignNode() {
	key, err := keys.GenerateECDSA(elliptic.P256())
	if err != nil {
		panic(err)
	}

	doc, err := signedxml.Parse([]byte(`<Batch><Item ID="a">1</Item><Item ID="b">2</Item></Batch>`))
	if err != nil {
		panic(err)
	}
	item := doc.Root().SelectElement("Item")
	if err := doc.SetIDAttribute(item, "ID"); err != nil {
		panic(err)
	}

	engine := signedxml.DefaultEngine()
	if _, err := engine.SignNode(doc, item, key, signedxml.SignConfig{ReferenceURI: "#a"}); err != nil {
		panic(err)
	}

	valid, err := engine.Validate(doc, key.Public())
	if err != nil {
		panic(err)
	}
	fmt.Println(valid)
	// Output: true
}
