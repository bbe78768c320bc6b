package metadata

// schemaSource describes the wire format in protobuf syntax. The codec does
// not use it; Dump compiles it at run time to render records.
const schemaSource = `
syntax = "proto2";

package semcore.metadata;

message Envelope {
  repeated int32 metadata_version = 1 [packed = true];
  repeated int32 abi_version = 2 [packed = true];
  optional Kind kind = 3;
  optional StringTable strings = 4;
  optional QualifiedNameTable qualified_names = 5;
  optional bytes data = 6;
  optional string name = 7;

  enum Kind {
    UNKNOWN = 0;
    CLASS = 1;
    PACKAGE = 2;
  }
}

message StringTable {
  repeated string string = 1;
}

message QualifiedNameTable {
  repeated QualifiedName qualified_name = 1;

  message QualifiedName {
    optional int32 parent_qualified_name = 1 [default = -1];
    required int32 short_name = 2;
    optional Kind kind = 3 [default = PACKAGE];

    enum Kind {
      CLASS = 0;
      PACKAGE = 1;
      LOCAL = 2;
    }
  }
}

message Type {
  optional int32 flags = 1;
  repeated Argument argument = 2;
  optional bool nullable = 3;
  optional int32 class_name = 4;
  optional int32 type_parameter = 5;
  optional int32 type_parameter_name = 6;

  message Argument {
    optional Projection projection = 1 [default = INV];
    optional Type type = 2;
    optional int32 type_id = 3;

    enum Projection {
      IN = 0;
      OUT = 1;
      INV = 2;
      STAR = 3;
    }
  }
}

message TypeTable {
  repeated Type type = 1;
  optional int32 first_nullable = 2 [default = -1];
}

message TypeParameter {
  required int32 id = 1;
  required int32 name = 2;
  optional bool reified = 3;
  optional Variance variance = 4 [default = INV];
  repeated Type upper_bound = 5;
  repeated int32 upper_bound_id = 6 [packed = true];

  enum Variance {
    IN = 0;
    OUT = 1;
    INV = 2;
  }
}

message ValueParameter {
  optional int32 flags = 1;
  required int32 name = 2;
  optional Type type = 3;
  optional int32 type_id = 4;
  optional Type vararg_element_type = 5;
  optional int32 vararg_element_type_id = 6;
}

message Function {
  optional int32 flags = 1 [default = 6];
  required int32 name = 2;
  optional Type return_type = 3;
  optional int32 return_type_id = 4;
  repeated TypeParameter type_parameter = 5;
  optional Type receiver_type = 6;
  optional int32 receiver_type_id = 7;
  repeated ValueParameter value_parameter = 8;
}

message Property {
  optional int32 flags = 1 [default = 518];
  required int32 name = 2;
  optional Type return_type = 3;
  optional int32 return_type_id = 4;
  repeated TypeParameter type_parameter = 5;
  optional Type receiver_type = 6;
  optional int32 receiver_type_id = 7;
  optional int32 getter_flags = 9;
  optional int32 setter_flags = 10;
}

message Constructor {
  optional int32 flags = 1 [default = 6];
  repeated ValueParameter value_parameter = 2;
}

message EnumEntry {
  optional int32 name = 1;
}

message Class {
  optional int32 flags = 1 [default = 6];
  required int32 fq_name = 3;
  optional int32 companion_object_name = 4;
  repeated TypeParameter type_parameter = 5;
  repeated Type supertype = 6;
  repeated int32 supertype_id = 7 [packed = true];
  repeated int32 nested_class_name = 8 [packed = true];
  repeated Constructor constructor = 9;
  repeated Function function = 10;
  repeated Property property = 11;
  repeated EnumEntry enum_entry = 12;
  optional TypeTable type_table = 13;
  repeated int32 sealed_subclass_fq_name = 14 [packed = true];
}

message Package {
  repeated Function function = 1;
  repeated Property property = 2;
  optional TypeTable type_table = 4;
  optional int32 fq_name = 5;
}
`
