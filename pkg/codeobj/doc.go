/*
Package codeobj is the entry point for reading AMDGPU code objects.

# Quick Start

Decode the PAL pipeline metadata of a code object:

	co, err := codeobj.OpenFile("shader.elf")
	if err != nil {
	    log.Fatal(err)
	}
	defer co.Close()

	data, err := co.ExtractPalPipelineData()
	if err != nil {
	    log.Printf("partial decode: %v", err)
	}
	defer codeobj.ClearPalPipelineData(data)

# Inputs

OpenFile maps the file read-only; OpenBuffer copies the caller's slice. The
default opener recognises:

  - ELF code objects, with metadata in the NT_AMDGPU_METADATA note
    (MessagePack) or the legacy NT_AMD_HSA_METADATA note (YAML)
  - bare MessagePack metadata blobs
  - YAML metadata text

WithOpener replaces the opener, for example with a binding to the vendor
code object manager.

# Errors

Every method returns its error directly. The most recent failure is also kept
in a per-object slot that GetLastError drains:

	if _, err := co.ExtractSymbolData(); err != nil {
	    status, msg := co.GetLastError()
	    fmt.Println(status, msg)
	}

A decode that fails part way still returns a well-formed structure holding
what was decoded.

# Assembly and Compilation

ExtractAssemblyData and ConvertSourceToCodeObject run fixed action chains on
the Actor given with WithActor. Without one they fail with
types.ErrUnsupported.

# Concurrency

A CodeObj serialises its own calls. Separate CodeObjs share nothing and may
be used from different goroutines.
*/
package codeobj
