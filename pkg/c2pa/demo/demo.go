package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"git.stream.place/streamplace/c2pa-ffi/pkg/c2pa"
)

func Start() error {
	fs := flag.NewFlagSet("c2pa-ffi-demo", flag.ExitOnError)
	manifest := fs.String("manifest", "", "manifest file for signing")
	cert := fs.String("cert", "", "certificate file to use")
	key := fs.String("key", "", "private key file to use")
	input := fs.String("input", "", "input file for signing")
	output := fs.String("output", "", "output file for signing")
	alg := fs.String("alg", "", "algorithm to use to sign (es256, es256k, es384, es512, ps256, ps384, ps512, ed25519)")
	taURL := fs.String("ta-url", "http://timestamp.digicert.com", "time authority url")
	pass := os.Args[1:]
	err := fs.Parse(pass)
	if err != nil {
		return err
	}
	if *manifest != "" || *output != "" {
		if *manifest == "" {
			return fmt.Errorf("missing --manifest")
		}
		if *output == "" {
			return fmt.Errorf("missing --output")
		}
		if *input == "" {
			return fmt.Errorf("missing --input")
		}
		if *cert == "" {
			return fmt.Errorf("missing --cert")
		}
		if *key == "" {
			return fmt.Errorf("missing --key")
		}
		if *alg == "" {
			return fmt.Errorf("missing --alg")
		}
		certBytes, err := os.ReadFile(*cert)
		if err != nil {
			return err
		}
		keyBytes, err := os.ReadFile(*key)
		if err != nil {
			return err
		}
		manifestBytes, err := os.ReadFile(*manifest)
		if err != nil {
			return err
		}
		b, err := c2pa.BuilderFromJSON(string(manifestBytes))
		if err != nil {
			return err
		}
		signer, err := c2pa.NewLocalSigner(certBytes, keyBytes, *alg, *taURL)
		if err != nil {
			return err
		}
		_, err = b.SignFile(signer, *input, *output)
		if err != nil {
			return err
		}
		return nil
	}
	args := fs.Args()
	if len(args) != 1 {
		fs.Usage()
		fmt.Printf("usage: %s [target-file]\n", os.Args[0])
		return nil
	}
	fname := args[0]
	reader, err := c2pa.FromFile(fname)
	if err != nil {
		return err
	}

	activeManifest := reader.GetActiveManifest()
	if activeManifest == nil {
		return fmt.Errorf("could not find active manifest")
	}

	bs, err := json.MarshalIndent(activeManifest, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(bs))
	return nil
}

func main() {
	err := Start()
	if err != nil {
		panic(err)
	}
}
